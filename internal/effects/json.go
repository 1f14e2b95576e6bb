package effects

import (
	"encoding/json"

	"github.com/rgbcct/panelfx/internal/apperr"
	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/colorspace"
)

// jsonValue is the on-wire/on-disk shape of a Value: one tagged field is
// populated depending on Kind. Used both by the command protocol (params
// arrive as JSON payloads) and by the preset store (params persist as
// JSON).
type jsonValue struct {
	Kind     ValueKind              `json:"kind"`
	Number   *float64               `json:"number,omitempty"`
	Bool     *bool                  `json:"bool,omitempty"`
	String   *string                `json:"string,omitempty"`
	Color    *colorspace.RGBCCT     `json:"color,omitempty"`
	Gradient *colormanager.Gradient `json:"gradient,omitempty"`
	Colors   []colorspace.RGBCCT    `json:"colors,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	jv := jsonValue{Kind: v.Kind}
	switch v.Kind {
	case KindNumber:
		n := v.Number
		jv.Number = &n
	case KindBool:
		b := v.Bool
		jv.Bool = &b
	case KindString:
		s := v.String
		jv.String = &s
	case KindColor:
		c := v.Color
		jv.Color = &c
	case KindGradient:
		g := v.Gradient
		jv.Gradient = &g
	case KindColors:
		jv.Colors = v.Colors
	}
	return json.Marshal(jv)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	v.Kind = jv.Kind
	switch jv.Kind {
	case KindNumber:
		if jv.Number == nil {
			return apperr.New(apperr.InvalidParam, "number value missing its number field")
		}
		v.Number = *jv.Number
	case KindBool:
		if jv.Bool == nil {
			return apperr.New(apperr.InvalidParam, "bool value missing its bool field")
		}
		v.Bool = *jv.Bool
	case KindString:
		if jv.String == nil {
			return apperr.New(apperr.InvalidParam, "string value missing its string field")
		}
		v.String = *jv.String
	case KindColor:
		if jv.Color == nil {
			return apperr.New(apperr.InvalidParam, "color value missing its color field")
		}
		v.Color = *jv.Color
	case KindGradient:
		if jv.Gradient == nil {
			return apperr.New(apperr.InvalidParam, "gradient value missing its gradient field")
		}
		v.Gradient = *jv.Gradient
	case KindColors:
		v.Colors = jv.Colors
	default:
		return apperr.New(apperr.InvalidParam, "unknown param value kind %q", jv.Kind)
	}
	return nil
}
