package account

// Tier 是一个奖品档位
type Tier struct {
	Threshold int    `json:"threshold"`
	Prize     string `json:"prize"`
}

// 从高到低排列；同一分数档只取一个代表奖品作为标签
var tiers = []Tier{
	{100, "Поездка в Грузию"},
	{50, "Планшет"},
	{30, "Телевизор"},
	{20, "Беспроводные наушники"},
	{10, "Карта «Ёвар»"},
}

// PotentialPrize 返回本局分数达到的最高档位，未达到任何档位返回空字符串
func PotentialPrize(score int) string {
	for _, t := range tiers {
		if score >= t.Threshold {
			return t.Prize
		}
	}
	return ""
}

// NextTier returns the lowest tier strictly above score.
func NextTier(score int) (Tier, bool) {
	for i := len(tiers) - 1; i >= 0; i-- {
		if tiers[i].Threshold > score {
			return tiers[i], true
		}
	}
	return Tier{}, false
}
