package domain

// Driver is referenced by trips; this core never mutates it.
type Driver struct {
	ID   string
	Name string
}
