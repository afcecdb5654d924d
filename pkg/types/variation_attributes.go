package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// Attributes is implemented by every per-category attribute set a variation can carry.
type Attributes interface {
	Kind() enums.AttributeKind
	Validate() error
}

type TShirtAttributes struct {
	Size         string `json:"size"`
	Color        string `json:"color"`
	Material     string `json:"material,omitempty"`
	Fit          string `json:"fit,omitempty"`
	SleeveLength string `json:"sleeveLength,omitempty"`
}

func (TShirtAttributes) Kind() enums.AttributeKind { return enums.AttributeKindTShirt }

func (a TShirtAttributes) Validate() error { return requireSizeColor(a.Size, a.Color) }

type PantAttributes struct {
	Waist    int    `json:"waist"`
	Inseam   int    `json:"inseam"`
	Color    string `json:"color"`
	Material string `json:"material,omitempty"`
	Fit      string `json:"fit,omitempty"`
}

func (PantAttributes) Kind() enums.AttributeKind { return enums.AttributeKindPant }

func (a PantAttributes) Validate() error {
	if a.Waist <= 0 || a.Inseam <= 0 {
		return errors.New("waist and inseam must be positive")
	}
	if strings.TrimSpace(a.Color) == "" {
		return errors.New("color is required")
	}
	return nil
}

type ShoeAttributes struct {
	Size     string `json:"size"`
	Width    string `json:"width,omitempty"`
	Color    string `json:"color"`
	Material string `json:"material,omitempty"`
}

func (ShoeAttributes) Kind() enums.AttributeKind { return enums.AttributeKindShoe }

func (a ShoeAttributes) Validate() error { return requireSizeColor(a.Size, a.Color) }

type ShirtAttributes struct {
	Size         string `json:"size"`
	Color        string `json:"color"`
	Material     string `json:"material,omitempty"`
	CollarType   string `json:"collarType,omitempty"`
	SleeveLength string `json:"sleeveLength,omitempty"`
}

func (ShirtAttributes) Kind() enums.AttributeKind { return enums.AttributeKindShirt }

func (a ShirtAttributes) Validate() error { return requireSizeColor(a.Size, a.Color) }

type JacketAttributes struct {
	Size       string `json:"size"`
	Color      string `json:"color"`
	Material   string `json:"material,omitempty"`
	Waterproof bool   `json:"waterproof"`
}

func (JacketAttributes) Kind() enums.AttributeKind { return enums.AttributeKindJacket }

func (a JacketAttributes) Validate() error { return requireSizeColor(a.Size, a.Color) }

type UndergarmentAttributes struct {
	Size      string `json:"size"`
	Color     string `json:"color"`
	Material  string `json:"material,omitempty"`
	PackCount int    `json:"packCount,omitempty"`
}

func (UndergarmentAttributes) Kind() enums.AttributeKind { return enums.AttributeKindUndergarment }

func (a UndergarmentAttributes) Validate() error {
	if a.PackCount < 0 {
		return errors.New("packCount cannot be negative")
	}
	return requireSizeColor(a.Size, a.Color)
}

// GenericAttributes is a free-form bag for categories without a dedicated schema.
type GenericAttributes struct {
	Values map[string]string `json:"values"`
}

func (GenericAttributes) Kind() enums.AttributeKind { return enums.AttributeKindGeneric }

func (a GenericAttributes) Validate() error { return nil }

func requireSizeColor(size, color string) error {
	if strings.TrimSpace(size) == "" {
		return errors.New("size is required")
	}
	if strings.TrimSpace(color) == "" {
		return errors.New("color is required")
	}
	return nil
}

// VariationAttributes stores exactly one Attributes variant, tagged by its kind.
// It is persisted as JSON: {"kind":"shoe","data":{...}}.
type VariationAttributes struct {
	Attributes
}

type attributesWire struct {
	Kind enums.AttributeKind `json:"kind"`
	Data json.RawMessage     `json:"data"`
}

// NewVariationAttributes wraps a variant after validating it.
func NewVariationAttributes(attrs Attributes) (VariationAttributes, error) {
	if attrs == nil {
		return VariationAttributes{}, errors.New("attributes are required")
	}
	if err := attrs.Validate(); err != nil {
		return VariationAttributes{}, fmt.Errorf("%s attributes: %w", attrs.Kind(), err)
	}
	return VariationAttributes{Attributes: attrs}, nil
}

// KindOrEmpty returns the variant kind or "" when unset.
func (v VariationAttributes) KindOrEmpty() enums.AttributeKind {
	if v.Attributes == nil {
		return ""
	}
	return v.Attributes.Kind()
}

func (v VariationAttributes) MarshalJSON() ([]byte, error) {
	if v.Attributes == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(v.Attributes)
	if err != nil {
		return nil, err
	}
	return json.Marshal(attributesWire{Kind: v.Attributes.Kind(), Data: data})
}

func (v *VariationAttributes) UnmarshalJSON(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		v.Attributes = nil
		return nil
	}
	var wire attributesWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	attrs, err := decodeAttributes(wire.Kind, wire.Data)
	if err != nil {
		return err
	}
	v.Attributes = attrs
	return nil
}

func decodeAttributes(kind enums.AttributeKind, data json.RawMessage) (Attributes, error) {
	var target Attributes
	switch kind {
	case enums.AttributeKindTShirt:
		var a TShirtAttributes
		if err := unmarshalData(data, &a); err != nil {
			return nil, err
		}
		target = a
	case enums.AttributeKindPant:
		var a PantAttributes
		if err := unmarshalData(data, &a); err != nil {
			return nil, err
		}
		target = a
	case enums.AttributeKindShoe:
		var a ShoeAttributes
		if err := unmarshalData(data, &a); err != nil {
			return nil, err
		}
		target = a
	case enums.AttributeKindShirt:
		var a ShirtAttributes
		if err := unmarshalData(data, &a); err != nil {
			return nil, err
		}
		target = a
	case enums.AttributeKindJacket:
		var a JacketAttributes
		if err := unmarshalData(data, &a); err != nil {
			return nil, err
		}
		target = a
	case enums.AttributeKindUndergarment:
		var a UndergarmentAttributes
		if err := unmarshalData(data, &a); err != nil {
			return nil, err
		}
		target = a
	case enums.AttributeKindGeneric:
		var a GenericAttributes
		if err := unmarshalData(data, &a); err != nil {
			return nil, err
		}
		target = a
	default:
		return nil, fmt.Errorf("unknown attribute kind %q", kind)
	}
	return target, nil
}

func unmarshalData(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// Value implements driver.Valuer.
func (v VariationAttributes) Value() (driver.Value, error) {
	if v.Attributes == nil {
		return nil, nil
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *VariationAttributes) Scan(src any) error {
	switch val := src.(type) {
	case nil:
		v.Attributes = nil
		return nil
	case []byte:
		return v.UnmarshalJSON(val)
	case string:
		return v.UnmarshalJSON([]byte(val))
	default:
		return fmt.Errorf("variation attributes: unsupported scan type %T", src)
	}
}
