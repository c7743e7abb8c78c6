package config

// Game holds the scoring rules of the snitch game. Values mirror the
// long-standing chat rules and change rarely, so they live here rather
// than in the environment.
type Game struct {
	PointsWhining   int64
	PointsStiffness int64
	PointsToxicity  int64
	PointsSnitching int64

	AFKThresholdDays int
	AFKBasePoints    int64
	AFKDailyPoints   int64

	GambleWinChance  float64
	GambleWinPoints  int64
	GambleLossPoints int64

	FalseReportLimit   int64
	FalseReportPenalty int64

	ReportContextLimit int

	CynicalCommentChance   float64
	CynicalCommentCooldown int // seconds

	Ranks []RankTier
}

// RankTier is one rung of the hierarchy. Tiers are ascending and
// non-overlapping; rank lookup walks them from the top down.
type RankTier struct {
	Min   int64
	Title string
}

func DefaultGame() Game {
	return Game{
		PointsWhining:   10,
		PointsStiffness: 15,
		PointsToxicity:  25,
		PointsSnitching: 50,

		AFKThresholdDays: 2,
		AFKBasePoints:    50,
		AFKDailyPoints:   50,

		GambleWinChance:  0.49,
		GambleWinPoints:  50,
		GambleLossPoints: 75,

		FalseReportLimit:   3,
		FalseReportPenalty: 25,

		ReportContextLimit: 25,

		CynicalCommentChance:   0.005,
		CynicalCommentCooldown: 1800,

		Ranks: []RankTier{
			{Min: 0, Title: "Порядочный 😐"},
			{Min: 50, Title: "Шнырь 🐀"},
			{Min: 250, Title: "Козёл 🐐"},
			{Min: 750, Title: "Обиженный 😤"},
			{Min: 1500, Title: "Проколотый 📌"},
		},
	}
}

// RankFor returns the tier title matching the given score.
func (g Game) RankFor(points int64) string {
	title := g.Ranks[0].Title
	for _, tier := range g.Ranks {
		if points >= tier.Min {
			title = tier.Title
		}
	}
	return title
}
