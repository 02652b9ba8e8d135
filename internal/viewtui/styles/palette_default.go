package styles

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name: "default",
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Chrome: ChromeColors{
		Header:  "24",
		Footer:  "236",
		Loading: "220",
		Playing: "41",
		Error:   "203",
	},
	Coverage: CoverageColors{
		Loaded:  "41",
		Partial: "220",
		Failed:  "203",
		Missing: "238",
		Cursor:  "231",
	},
}
