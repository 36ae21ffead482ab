package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/layout"
	"github.com/viveknathani/dblineage/view"
)

// Format represents the output serialization format
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatCanvas Format = "canvas"
	FormatD2     Format = "d2"
	FormatASCII  Format = "ascii"
	FormatSVG    Format = "svg"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrNilGraph      = errors.New("lineage graph cannot be nil")
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatCanvas, FormatD2, FormatASCII, FormatSVG}
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

type options struct {
	layout layout.Options
	hover  view.HoverContext
}

type Option func(*options)

// WithLayout sets the box size and direction used to position unpositioned
// graphs and to scale the canvas.
func WithLayout(opts layout.Options) Option {
	return func(o *options) {
		o.layout = opts
	}
}

// WithHover highlights the hovered node and its neighbors.
func WithHover(hover view.HoverContext) Option {
	return func(o *options) {
		o.hover = hover
	}
}

// Render generates a string representation of the lineage graph in the
// given format. Graphs that were never positioned are laid out first.
func Render(ctx context.Context, g *graph.LineageGraph, format Format, opts ...Option) (string, error) {
	if g == nil {
		return "", ErrNilGraph
	}

	o := options{layout: layout.DefaultOptions()}
	for _, opt := range opts {
		opt(&o)
	}
	o.layout = o.layout.WithDefaults()

	if !g.IsEmpty() && g.Width == 0 && g.Height == 0 {
		g = g.Positioned(o.layout)
	}

	switch format {
	case FormatText:
		return renderText(g, o), nil
	case FormatJSON:
		return renderJSON(g)
	case FormatCanvas:
		return renderCanvas(g, o), nil
	case FormatD2:
		return d2Script(g, o), nil
	case FormatASCII:
		return renderASCII(ctx, g, o)
	case FormatSVG:
		return renderSVG(ctx, g, o)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
