package identity

// badgeFlags maps public user flag bits to badge names, in bit order.
var badgeFlags = []struct {
	bit  uint64
	name Badge
}{
	{1 << 0, "STAFF"},
	{1 << 1, "PARTNERED_SERVER_OWNER"},
	{1 << 2, "HYPESQUAD_EVENTS"},
	{1 << 3, "BUGHUNTER_LEVEL_1"},
	{1 << 6, "HOUSE_BRAVERY"},
	{1 << 7, "HOUSE_BRILLIANCE"},
	{1 << 8, "HOUSE_BALANCE"},
	{1 << 9, "PREMIUM_EARLY_SUPPORTER"},
	{1 << 14, "BUGHUNTER_LEVEL_2"},
	{1 << 16, "VERIFIED_BOT"},
	{1 << 17, "EARLY_VERIFIED_BOT_DEVELOPER"},
	{1 << 18, "DISCORD_CERTIFIED_MODERATOR"},
	{1 << 22, "ACTIVE_DEVELOPER"},
}

var badgeLabels = map[Badge]string{
	"STAFF":                        "Discord Staff",
	"PARTNERED_SERVER_OWNER":       "Partner",
	"EARLY_VERIFIED_BOT_DEVELOPER": "Early Bot Developer",
	"DISCORD_CERTIFIED_MODERATOR":  "Certified Moderator",
	"PREMIUM_EARLY_SUPPORTER":      "Early Supporter",
	"ACTIVE_DEVELOPER":             "Active Developer",
	"VERIFIED_BOT":                 "Verified Bot",
}

// BadgesFromFlags decodes a public flags bitfield into badge names.
func BadgesFromFlags(flags uint64) []Badge {
	var badges []Badge

	for _, f := range badgeFlags {
		if flags&f.bit != 0 {
			badges = append(badges, f.name)
		}
	}

	return badges
}

// Label returns a friendly name for the badge, falling back to the raw name.
func (b Badge) Label() string {
	if label, ok := badgeLabels[b]; ok {
		return label
	}

	return string(b)
}
