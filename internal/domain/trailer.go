package domain

// Trailer is a cargo unit that can be left behind while it waits.
type Trailer struct {
	ID     string
	Plate  string
	Active bool
}
