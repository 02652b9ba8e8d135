package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name: "high-contrast",
	Base: BaseColors{
		Background: "16",
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
	},
	Chrome: ChromeColors{
		Header:  "21",
		Footer:  "16",
		Loading: "226",
		Playing: "46",
		Error:   "196",
	},
	Coverage: CoverageColors{
		Loaded:  "46",
		Partial: "226",
		Failed:  "196",
		Missing: "244",
		Cursor:  "51",
	},
}
