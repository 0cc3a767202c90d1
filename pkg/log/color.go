package log

import (
	"os"

	"github.com/gookit/color"
	"github.com/zan8in/hefest/pkg/progress"
	"github.com/zan8in/hefest/pkg/service"
)

var (
	EnableColor = true
)

type Color struct {
	Low     func(a ...any) string
	Medium  func(a ...any) string
	High    func(a ...any) string
	Unknown func(a ...any) string
	Open    func(a ...any) string
	Closed  func(a ...any) string
	Time    func(a ...any) string
	Title   func(a ...any) string
	Banner  func(a ...any) string
	Bold    func(a ...any) string
}

var LogColor *Color

func init() {
	detectTerminal()

	if LogColor == nil {
		LogColor = NewColor()
	}
}

func detectTerminal() {
	EnableColor = progress.EnableVirtualTerminal(os.Stdout)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		EnableColor = false
	}
	if !EnableColor {
		color.Disable()
	}
}

// DisableColor turns colored output off for the rest of the process.
func DisableColor() {
	EnableColor = false
	color.Disable()
}

func NewColor() *Color {
	return &Color{
		Low:     color.FgCyan.Render,
		Medium:  color.FgYellow.Render,
		High:    color.FgLightRed.Render,
		Unknown: color.BgDefault.Render,
		Open:    color.FgLightGreen.Render,
		Closed:  color.Gray.Render,
		Time:    color.Gray.Render,
		Title:   color.FgLightBlue.Render,
		Banner:  color.FgLightGreen.Render,
		Bold:    color.Bold.Render,
	}
}

// Risk renders s in the color of risk.
func (c *Color) Risk(risk service.Risk, s string) string {
	switch risk {
	case service.Low:
		return c.Low(s)
	case service.Medium:
		return c.Medium(s)
	case service.High:
		return c.High(s)
	default:
		return c.Unknown(s)
	}
}
