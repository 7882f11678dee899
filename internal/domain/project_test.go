package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahankar/shatika/pkg/validator"
)

func validDesign() Design {
	return Design{
		Width:         800,
		Height:        600,
		BackgroundURL: "https://cdn.example.com/bg.png",
		Shapes: []Shape{
			{ID: "s1", X: 10, Y: 20, Width: 100, Height: 50, Rotation: 45, Fill: "#ff0000"},
			{ID: "s2", Width: 30, Height: 30, MaskURL: "https://cdn.example.com/m.png", Crop: &Crop{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}},
		},
	}
}

func TestDesign_Validate(t *testing.T) {
	d := validDesign()
	assert.NoError(t, d.Validate())
}

func TestDesign_ValidateReportsNestedFields(t *testing.T) {
	d := validDesign()
	d.Width = 0
	d.Shapes[0].Fill = "red"
	d.Shapes[1].Crop.Width = 2

	err := d.Validate()
	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Contains(t, fields, "width")
	assert.Contains(t, fields, "shapes[0].fill")
	assert.Contains(t, fields, "shapes[1].crop.width")
}

func TestDesign_TooManyShapes(t *testing.T) {
	d := validDesign()
	d.Shapes = make([]Shape, MaxShapes+1)
	for i := range d.Shapes {
		d.Shapes[i] = Shape{Width: 1, Height: 1}
	}
	assert.Error(t, d.Validate())
}

func TestFacetKind(t *testing.T) {
	assert.Equal(t, "categories", FacetCategory.Table())
	assert.Equal(t, "arts", FacetArt.Table())
	assert.Equal(t, "material_id", FacetMaterial.ProductColumn())
	assert.True(t, FacetCategory.Protected())
	assert.True(t, FacetArt.Protected())
	assert.False(t, FacetMaterial.Protected())
}

func TestProduct_AcceptsLabels(t *testing.T) {
	p := Product{Sizes: []string{"S", "M"}}
	assert.True(t, p.AcceptsSize("M"))
	assert.False(t, p.AcceptsSize("XL"))
	assert.True(t, p.AcceptsColor("anything"))
}

func TestAccount_Summary(t *testing.T) {
	a := Account{ID: "a1", Role: RoleAdmin, Cart: Cart{{ID: "i"}}, Favorites: Favorites{"p1", "p2"}}
	s := a.Summary()
	assert.True(t, a.IsAdmin())
	assert.Equal(t, 1, s.CartItemCount)
	assert.Equal(t, 2, s.FavoritesCount)
}
