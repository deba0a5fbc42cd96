package enrichment

import (
	"coinenrich/internal/coin"
	"coinenrich/internal/config"
)

// ShouldEnrich reports whether the gate admits the coin. Force admits every
// coin. The name_images gate admits coins missing a name or any image; the
// images_identifier gate admits coins missing face images or a catalog
// reference. Unknown gates behave like name_images.
func ShouldEnrich(gate string, c coin.Coin, force bool) bool {
	if force {
		return true
	}
	switch gate {
	case config.GateImagesIdentifier:
		return !c.HasFaceImages() || !c.HasCatalogReference()
	default:
		return !c.HasName() || !c.HasImages()
	}
}
