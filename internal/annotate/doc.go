// Package annotate draws analysed lesions onto the source image (box, label
// chip, mask tint and outline) and assembles the JSON report returned to
// clients.
package annotate
