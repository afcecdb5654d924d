package types

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

func TestVariationAttributesRoundTripKeepsVariant(t *testing.T) {
	attrs, err := NewVariationAttributes(ShoeAttributes{Size: "42", Color: "black", Width: "wide"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(attrs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded VariationAttributes
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	shoe, ok := decoded.Attributes.(ShoeAttributes)
	if !ok {
		t.Fatalf("expected ShoeAttributes, got %T", decoded.Attributes)
	}
	if shoe.Size != "42" || shoe.Width != "wide" {
		t.Fatalf("unexpected shoe attributes %+v", shoe)
	}
	if decoded.KindOrEmpty() != enums.AttributeKindShoe {
		t.Fatalf("unexpected kind %s", decoded.KindOrEmpty())
	}
}

func TestVariationAttributesRejectsUnknownKind(t *testing.T) {
	var decoded VariationAttributes
	err := json.Unmarshal([]byte(`{"kind":"hat","data":{"size":"m"}}`), &decoded)
	if err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestNewVariationAttributesValidates(t *testing.T) {
	if _, err := NewVariationAttributes(TShirtAttributes{Color: "red"}); err == nil {
		t.Fatal("expected missing size to fail")
	}
	if _, err := NewVariationAttributes(PantAttributes{Waist: 32, Color: "blue"}); err == nil {
		t.Fatal("expected missing inseam to fail")
	}
	if _, err := NewVariationAttributes(nil); err == nil {
		t.Fatal("expected nil attributes to fail")
	}
	if _, err := NewVariationAttributes(GenericAttributes{Values: map[string]string{"pattern": "striped"}}); err != nil {
		t.Fatalf("generic attributes should validate: %v", err)
	}
}

func TestVariationAttributesScan(t *testing.T) {
	var attrs VariationAttributes
	if err := attrs.Scan([]byte(`{"kind":"jacket","data":{"size":"L","color":"olive","waterproof":true}}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	jacket, ok := attrs.Attributes.(JacketAttributes)
	if !ok || !jacket.Waterproof {
		t.Fatalf("unexpected scan result %#v", attrs.Attributes)
	}

	if err := attrs.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if attrs.Attributes != nil {
		t.Fatal("expected nil attributes after scanning NULL")
	}
}
