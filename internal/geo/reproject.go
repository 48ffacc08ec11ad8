package geo

import (
	"fmt"

	"github.com/Venancio-01/qingshan-map/internal/layer"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Reprojector transforms layers into a fixed target reference system.
// Transforms are cached per source definition.
type Reprojector struct {
	target     *proj.SR
	name       string
	transforms map[string]proj.Transformer
}

// NewReprojector returns a reprojector into target (EPSG code, PROJ string or WKT).
func NewReprojector(target string) (*Reprojector, error) {
	sr, err := ParseCRS(target)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", target, err)
	}

	return &Reprojector{
		target:     sr,
		name:       target,
		transforms: make(map[string]proj.Transformer),
	}, nil
}

// Target returns the target reference system as configured.
func (r *Reprojector) Target() string {
	return r.name
}

// Apply reprojects every feature of l in place and sets l.CRS to the target.
func (r *Reprojector) Apply(l *layer.Layer) error {
	if l.CRS == "" {
		return ErrNoCRS
	}

	ct, err := r.transform(l.CRS)
	if err != nil {
		return err
	}

	for i, f := range l.Features {
		if f.Geometry == nil {
			continue
		}

		var perr error
		g := project.Geometry(f.Geometry, func(p orb.Point) orb.Point {
			x, y, err := ct(p[0], p[1])
			if err != nil {
				if perr == nil {
					perr = err
				}
				return p
			}
			return orb.Point{x, y}
		})
		if perr != nil {
			return fmt.Errorf("feature %d: %w", i, perr)
		}

		f.Geometry = g
		f.BBox = nil
	}

	l.CRS = r.name
	return nil
}

func (r *Reprojector) transform(src string) (proj.Transformer, error) {
	if ct, ok := r.transforms[src]; ok {
		return ct, nil
	}

	sr, err := ParseCRS(src)
	if err != nil {
		return nil, err
	}

	ct, err := sr.NewTransform(r.target)
	if err != nil {
		return nil, fmt.Errorf("build transform: %w", err)
	}
	r.transforms[src] = ct

	return ct, nil
}
