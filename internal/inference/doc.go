// Package inference talks to the model servers that host the lesion
// detector, the embedding extractors and the trained classifier. Calls are
// JSON or multipart over HTTP and share a Gate that caps concurrent use of
// the compute device.
package inference
