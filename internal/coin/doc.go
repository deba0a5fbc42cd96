// Package coin decodes stored coin documents into an explicit record and
// exposes the accessors used during enrichment.
//
// Documents are loosely typed attribute bags. FromFields lifts the attributes
// the pipeline reads into named fields and keeps the raw bag alongside so the
// merge policy can test any top-level field for blankness. Every synonym field
// the package consults is listed in the exported path tables (TypeIDPaths,
// YearPaths, IssuerPaths, NamePaths, ImagePaths, FaceImagePaths,
// CatalogReferencePaths) rather than probed ad hoc.
//
// The package also owns the catalog identifier extractor (ExtractTypeID), year
// and denomination parsers, and the Resolution value that records where a
// type id came from.
package coin
