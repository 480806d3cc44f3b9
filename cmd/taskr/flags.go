package main

// Flag structs to decouple cobra from logic for testing.

type ReadFlags struct {
	Status   string
	Priority string
	Stats    bool
}

type AddFlags struct {
	Priority string
	Status   string
	ID       string
}

type ServeFlags struct {
	Listen        string
	BasePath      string
	TLSDir        string
	MetricsListen string
}
