package analyzer

// Config holds the classification thresholds. Fractions are relative to the
// bounding box of all visible elements unless noted. None of them is a
// contract; they were tuned against typical landing-page layouts.
type Config struct {
	// ContainmentOverlap is the share of an element's own area another,
	// larger element must cover to become its inferred parent.
	ContainmentOverlap float64 `mapstructure:"containment_overlap"`
	// PageFrameCoverage marks a root covering this share of the bounding box
	// as a page frame whose children are classified as top-level sections.
	PageFrameCoverage float64 `mapstructure:"page_frame_coverage"`

	FullWidth        float64 `mapstructure:"full_width"`
	LowHeight        float64 `mapstructure:"low_height"`
	NearTop          float64 `mapstructure:"near_top"`
	NearBottom       float64 `mapstructure:"near_bottom"`
	SideEdge         float64 `mapstructure:"side_edge"`
	NarrowWidth      float64 `mapstructure:"narrow_width"`
	// SidebarMinAspect is the minimum height/width ratio of a sidebar. It is
	// not relative to the bounding box, so tall pages keep their sidebars.
	SidebarMinAspect float64 `mapstructure:"sidebar_min_aspect"`
	HeroTop          float64 `mapstructure:"hero_top"`
	HeroMinHeight    float64 `mapstructure:"hero_min_height"`
	// CardMaxWidth is relative to the parent for nested elements.
	CardMaxWidth float64 `mapstructure:"card_max_width"`
	// CardMinAspect is the minimum height/width ratio of a card.
	CardMinAspect float64 `mapstructure:"card_min_aspect"`

	// CenterTolerance is the allowed spread of child centers, as a share of
	// the children's mean extent on the same axis.
	CenterTolerance float64 `mapstructure:"center_tolerance"`
	// GridMaxCV is the largest coefficient of variation of child widths and
	// heights still treated as a uniform grid.
	GridMaxCV float64 `mapstructure:"grid_max_cv"`

	// Absolute units for leaf text classification.
	HeadingFontSize float64 `mapstructure:"heading_font_size"`
	ButtonMaxWidth  float64 `mapstructure:"button_max_width"`
	ButtonMaxHeight float64 `mapstructure:"button_max_height"`
	ButtonMaxChars  int     `mapstructure:"button_max_chars"`
}

func DefaultConfig() Config {
	return Config{
		ContainmentOverlap: 0.7,
		PageFrameCoverage:  0.9,
		FullWidth:          0.8,
		LowHeight:          0.18,
		NearTop:            0.25,
		NearBottom:         0.12,
		SideEdge:           0.05,
		NarrowWidth:        0.3,
		SidebarMinAspect:   1.5,
		HeroTop:            0.35,
		HeroMinHeight:      0.25,
		CardMaxWidth:       0.5,
		CardMinAspect:      0.75,
		CenterTolerance:    0.1,
		GridMaxCV:          0.15,
		HeadingFontSize:    24,
		ButtonMaxWidth:     240,
		ButtonMaxHeight:    64,
		ButtonMaxChars:     30,
	}
}

// withDefaults fills zero fields so a partially set Config still works.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&c.ContainmentOverlap, d.ContainmentOverlap)
	fill(&c.PageFrameCoverage, d.PageFrameCoverage)
	fill(&c.FullWidth, d.FullWidth)
	fill(&c.LowHeight, d.LowHeight)
	fill(&c.NearTop, d.NearTop)
	fill(&c.NearBottom, d.NearBottom)
	fill(&c.SideEdge, d.SideEdge)
	fill(&c.NarrowWidth, d.NarrowWidth)
	fill(&c.SidebarMinAspect, d.SidebarMinAspect)
	fill(&c.HeroTop, d.HeroTop)
	fill(&c.HeroMinHeight, d.HeroMinHeight)
	fill(&c.CardMaxWidth, d.CardMaxWidth)
	fill(&c.CardMinAspect, d.CardMinAspect)
	fill(&c.CenterTolerance, d.CenterTolerance)
	fill(&c.GridMaxCV, d.GridMaxCV)
	fill(&c.HeadingFontSize, d.HeadingFontSize)
	fill(&c.ButtonMaxWidth, d.ButtonMaxWidth)
	fill(&c.ButtonMaxHeight, d.ButtonMaxHeight)
	if c.ButtonMaxChars <= 0 {
		c.ButtonMaxChars = d.ButtonMaxChars
	}
	return c
}
