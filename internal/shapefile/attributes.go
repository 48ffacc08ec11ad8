package shapefile

import (
	"strconv"
	"strings"
	"time"

	"github.com/Venancio-01/qingshan-map/internal/layer"

	shp "github.com/jonas-p/go-shp"
)

// dBASE field type codes.
const (
	fieldCharacter = 'C'
	fieldNumeric   = 'N'
	fieldFloat     = 'F'
	fieldLogical   = 'L'
	fieldDate      = 'D'
)

func convertFields(fields []shp.Field, dec decoder) []layer.Field {
	out := make([]layer.Field, len(fields))
	for i, f := range fields {
		out[i] = layer.Field{
			Name:      dec.String(f.String()),
			Type:      string(rune(f.Fieldtype)),
			Size:      int(f.Size),
			Precision: int(f.Precision),
		}
	}

	return out
}

// attributeValue converts a raw DBF cell into a typed property value.
// Blank or unparsable numeric, logical and date cells become nil.
func attributeValue(f layer.Field, raw string, dec decoder) any {
	switch f.Type[0] {
	case fieldNumeric:
		s := trim(raw)
		if s == "" || strings.Trim(s, "*") == "" {
			return nil
		}
		if f.Precision == 0 {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				return v
			}
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return nil

	case fieldFloat:
		s := trim(raw)
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return nil

	case fieldLogical:
		switch trim(raw) {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		}
		return nil

	case fieldDate:
		s := trim(raw)
		t, err := time.Parse("20060102", s)
		if err != nil {
			return nil
		}
		return t.Format(time.DateOnly)

	default:
		return dec.String(raw)
	}
}

func trim(raw string) string {
	return strings.Trim(raw, "\x00 ")
}
