// Package model holds the domain-level record types shared across the
// toolkit.
package model

import "fmt"

// KindFeature is the default kind of spatial objects.
const KindFeature = "Feature"

// Properties identifies a volumetric object: its unique identifier plus the
// kind of object it is. Identifiers are unique across kinds within one
// dataset.
type Properties struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Feature creates the properties of a spatial feature.
func Feature(id string) Properties {
	return Properties{ID: id, Kind: KindFeature}
}

// Unknown creates the properties of an arbitrary kind of object.
func Unknown(id, kind string) Properties {
	return Properties{ID: id, Kind: kind}
}

func (p Properties) String() string {
	return fmt.Sprintf("%s(%s)", p.Kind, p.ID)
}
