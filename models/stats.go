package models

// BetStats represents aggregated betting statistics for an owner
type BetStats struct {
	TotalBets    int   `json:"total_bets"`
	TotalWins    int   `json:"total_wins"`
	TotalLosses  int   `json:"total_losses"`
	TotalPending int   `json:"total_pending"`
	TotalErrored int   `json:"total_errored"`
	TotalWagered int64 `json:"total_wagered"`
	TotalWon     int64 `json:"total_won"`
	TotalLost    int64 `json:"total_lost"`
	BiggestWin   int64 `json:"biggest_win"`
	NetProfit    int64 `json:"net_profit"`
}

// WinPercentage returns the share of settled bets that were won
func (s *BetStats) WinPercentage() float64 {
	settled := s.TotalWins + s.TotalLosses
	if settled == 0 {
		return 0
	}
	return float64(s.TotalWins) / float64(settled) * 100
}

// Add folds a bet into the statistics
func (s *BetStats) Add(b *Bet) {
	s.TotalBets++
	s.TotalWagered += b.Stake
	switch b.Status {
	case StatusPending:
		s.TotalPending++
	case StatusWon:
		s.TotalWins++
		s.TotalWon += b.Payout
		if profit := b.GetNetProfit(); profit > s.BiggestWin {
			s.BiggestWin = profit
		}
	case StatusLost:
		s.TotalLosses++
		s.TotalLost += b.Stake
	case StatusError:
		s.TotalErrored++
	}
	s.NetProfit += b.GetNetProfit()
}
