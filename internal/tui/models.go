package tui

type View int

const (
	ViewTimeline View = iota
	ViewDetail
)
