// Package imaging loads, crops, resizes and encodes the images that flow
// through lesion analysis.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Detection boxes are
// inclusive on both corners; image.Rectangle values are exclusive on Max.
//
// # Crop Selection
//
// AdaptiveCrop tries the square sizes in CropSizes in ascending order,
// skipping any smaller than the box's larger side. Each candidate is centred
// on the box and shifted back inside the image without shrinking. The first
// candidate that still contains the whole box is cut out and resized to
// ClassifierInputSize square; when none does, the whole image is resized
// instead.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and never modify their input images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Files that are too large or of an unsupported type
//   - Boxes outside image bounds
//   - Encoding failures
package imaging
