package models

// ImageVariant selects one of the sized renditions the image service exposes
type ImageVariant int

const (
	PortraitSmall ImageVariant = iota
	PortraitMedium
	PortraitLarge
	PortraitXLarge
	StandardSmall
	StandardMedium
	StandardLarge
	StandardXLarge
	LandscapeSmall
	LandscapeMedium
	LandscapeLarge
	LandscapeXLarge
)

var variantLabels = [...]string{
	PortraitSmall:   "portrait_small",
	PortraitMedium:  "portrait_medium",
	PortraitLarge:   "portrait_large",
	PortraitXLarge:  "portrait_xlarge",
	StandardSmall:   "standard_small",
	StandardMedium:  "standard_medium",
	StandardLarge:   "standard_large",
	StandardXLarge:  "standard_xlarge",
	LandscapeSmall:  "landscape_small",
	LandscapeMedium: "landscape_medium",
	LandscapeLarge:  "landscape_large",
	LandscapeXLarge: "landscape_xlarge",
}

// AllVariants lists every variant in declaration order
func AllVariants() []ImageVariant {
	variants := make([]ImageVariant, len(variantLabels))
	for i := range variantLabels {
		variants[i] = ImageVariant(i)
	}
	return variants
}

// String returns the path label of the variant, e.g. "portrait_small"
func (v ImageVariant) String() string {
	if v < 0 || int(v) >= len(variantLabels) {
		return ""
	}
	return variantLabels[v]
}

// ParseImageVariant looks up a variant by its path label
func ParseImageVariant(label string) (ImageVariant, bool) {
	for i, l := range variantLabels {
		if l == label {
			return ImageVariant(i), true
		}
	}
	return 0, false
}

// ImageRef addresses a remote image by base path and file extension
type ImageRef struct {
	Path      string `json:"path" yaml:"path"`
	Extension string `json:"extension" yaml:"extension"`
}

// Resolve builds the URL of the given variant: path/label.extension
func (i ImageRef) Resolve(variant ImageVariant) string {
	return i.Path + "/" + variant.String() + "." + i.Extension
}
