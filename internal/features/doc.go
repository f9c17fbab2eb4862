// Package features measures segmented lesions: shape (area, Crofton
// perimeter, circularity, eccentricity), luminance statistics and GLCM
// texture homogeneity, all converted to millimetres with a caller-supplied
// pixel spacing.
package features
