// Package stac models the STAC Item and Collection documents produced by
// the pipeline, as plain structs with json tags, in the style of the
// go-sar-vendor client's STAC types rather than a heavyweight object model.
package stac

// Item is a STAC Item: a GeoJSON Feature with STAC-specific required
// properties and an assets map.
type Item struct {
	StacVersion string                 `json:"stac_version"`
	Type        string                 `json:"type"`
	ID          string                 `json:"id"`
	Geometry    map[string]interface{} `json:"geometry"`
	BBox        []float64              `json:"bbox,omitempty"`
	Properties  map[string]interface{} `json:"properties"`
	Assets      map[string]Asset       `json:"assets"`
	Links       []Link                 `json:"links,omitempty"`
	Collection  string                 `json:"collection,omitempty"`
}

// Asset describes one downloadable artifact attached to an Item.
type Asset struct {
	Href        string   `json:"href"`
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// Link is a STAC/GeoJSON link object.
type Link struct {
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// Collection is the minimal STAC Collection document synthesized at the end
// of a bulk transform run.
type Collection struct {
	StacVersion string                 `json:"stac_version"`
	Type        string                 `json:"type"`
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	License     string                 `json:"license"`
	Extent      Extent                 `json:"extent"`
	Links       []Link                 `json:"links"`
	Summaries   map[string]interface{} `json:"summaries,omitempty"`
}

// Extent holds the spatial and temporal extent of a Collection.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent is a list of [west, south, east, north] bounding boxes.
type SpatialExtent struct {
	BBox [][4]float64 `json:"bbox"`
}

// TemporalExtent is a list of [start, end] ISO-8601 interval pairs, either
// of which may be nil to denote an open interval.
type TemporalExtent struct {
	Interval [][2]*string `json:"interval"`
}

// TemporaryCollectionID is the hardcoded id always used for the transient
// collection manifest; the real catalog collection id is supplied via the
// ingestion endpoint's URL, not this document.
const TemporaryCollectionID = "temporary_collection"

// WorldBBox is the full-extent spatial bbox used when no tighter extent is
// known.
var WorldBBox = [4]float64{-180, -90, 180, 90}

// NewCollectionManifest builds the Collection Manifest described in the
// data model: static fields plus one "item" link per successfully
// transformed scene, in the order list() returned them.
func NewCollectionManifest(itemHrefs []string) *Collection {
	links := make([]Link, 0, len(itemHrefs))
	for _, href := range itemHrefs {
		links = append(links, Link{Rel: "item", Href: href, Type: "application/json"})
	}
	return &Collection{
		StacVersion: "1.0.0",
		Type:        "Collection",
		ID:          TemporaryCollectionID,
		Title:       "Temporary Collection",
		Description: "Transient collection generated by a bulk transform run.",
		License:     "other",
		Extent: Extent{
			Spatial:  SpatialExtent{BBox: [][4]float64{WorldBBox}},
			Temporal: TemporalExtent{Interval: [][2]*string{{nil, nil}}},
		},
		Links: links,
	}
}
