package analytics

type BadgeID string

const (
	BadgeWinner       BadgeID = "winner"
	BadgePerfectRound BadgeID = "perfect_round"
	BadgeDiligent     BadgeID = "diligent"
	BadgeSharpMind    BadgeID = "sharp_mind"
	BadgeUnstoppable  BadgeID = "unstoppable"
	BadgeCenturion    BadgeID = "centurion"
	BadgeVeteran      BadgeID = "veteran"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

var AllBadges = map[BadgeID]Badge{
	BadgeWinner:       {ID: BadgeWinner, Name: "Winner", Description: "Finished first in a room", Icon: "🏆"},
	BadgePerfectRound: {ID: BadgePerfectRound, Name: "Perfect Round", Description: "Every answer of a round correct", Icon: "✨"},
	BadgeDiligent:     {ID: BadgeDiligent, Name: "Diligent", Description: "Answered every question in a room", Icon: "📝"},
	BadgeSharpMind:    {ID: BadgeSharpMind, Name: "Sharp Mind", Description: "80%+ accuracy over 10+ questions in a room", Icon: "🧠"},
	BadgeUnstoppable:  {ID: BadgeUnstoppable, Name: "Unstoppable", Description: "3-room win streak", Icon: "🔥"},
	BadgeCenturion:    {ID: BadgeCenturion, Name: "Centurion", Description: "100+ points across all rooms", Icon: "💯"},
	BadgeVeteran:      {ID: BadgeVeteran, Name: "Veteran", Description: "Played 10+ rooms", Icon: "🏅"},
}

// EvaluateRoomBadges checks which badges a player earned in a single room.
func EvaluateRoomBadges(stats PlayerRoomStats) []Badge {
	var earned []Badge

	if stats.Rank == 1 && stats.FinalScore > 0 {
		earned = append(earned, AllBadges[BadgeWinner])
	}

	if stats.PerfectRounds > 0 {
		earned = append(earned, AllBadges[BadgePerfectRound])
	}

	if stats.Questions > 0 && stats.Skipped == 0 {
		earned = append(earned, AllBadges[BadgeDiligent])
	}

	if stats.Questions >= 10 && stats.Accuracy >= 80.0 {
		earned = append(earned, AllBadges[BadgeSharpMind])
	}

	return earned
}

// EvaluateLifetimeBadges checks which badges a player earned across every room.
func EvaluateLifetimeBadges(stats PlayerLifetimeStats) []Badge {
	var earned []Badge

	if stats.WinStreak >= 3 {
		earned = append(earned, AllBadges[BadgeUnstoppable])
	}

	if stats.TotalScore >= 100 {
		earned = append(earned, AllBadges[BadgeCenturion])
	}

	if stats.RoomsPlayed >= 10 {
		earned = append(earned, AllBadges[BadgeVeteran])
	}

	return earned
}
