package functions

// Standard returns a registry holding the built-in library.
func Standard() *Registry {
	r := NewRegistry()
	r.MustRegister(CoreOverloads()...)
	r.MustRegister(ArithmeticOverloads()...)
	r.MustRegister(ConversionOverloads()...)
	r.MustRegister(StringOverloads()...)
	r.MustRegister(TimeOverloads()...)
	r.MustRegister(OptionalOverloads()...)
	return r
}
