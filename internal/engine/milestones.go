package engine

import "github.com/eddiefleurent/riskround/internal/models"

// evaluate checks targets and achievements against the primary participant's
// net P/L. Each target is cleared once it fires; achievements are a set.
func evaluate(s *models.Session, round int, traded bool) []models.Event {
	net := s.NetProfitLoss()
	var events []models.Event

	unlock := func(id models.AchievementID, threshold models.Event) {
		if s.HasAchievement(id) {
			return
		}
		s.Achievements[id] = true
		threshold.Kind = models.EventAchievement
		threshold.Achievement = id
		threshold.NetProfitLoss = net
		threshold.Round = round
		events = append(events, threshold)
	}

	if traded {
		unlock(models.AchievementFirstTrade, models.Event{})
	}

	if t := s.Targets.Profit; t != nil && net.GreaterThanOrEqual(*t) {
		events = append(events, models.Event{Kind: models.EventProfitTarget, Threshold: *t, NetProfitLoss: net, Round: round})
		s.Targets.Profit = nil
	}
	if t := s.Targets.Loss; t != nil && net.LessThanOrEqual(*t) {
		events = append(events, models.Event{Kind: models.EventLossTarget, Threshold: *t, NetProfitLoss: net, Round: round})
		s.Targets.Loss = nil
	}

	if m := s.Config.ProfitMilestone; net.GreaterThanOrEqual(m) {
		unlock(models.AchievementProfitMilestone, models.Event{Threshold: m})
	}
	if m := s.Config.LossMilestone; net.LessThanOrEqual(m) {
		unlock(models.AchievementLossMilestone, models.Event{Threshold: m})
	}
	return events
}
