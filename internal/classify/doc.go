// Package classify assigns benign or malignant labels to merged lesions
// using external embedding, scaling and classification collaborators.
package classify
