package models

const (
	// Unavailable stands in for an asset reference the CMS could not resolve.
	Unavailable = "unavailable"

	PlaceholderImage = "/images/placeholder.png"
	Uncategorized    = "Uncategorized"
)

// Available reports whether url points at a resolved asset.
func Available(url string) bool {
	return url != "" && url != Unavailable
}
