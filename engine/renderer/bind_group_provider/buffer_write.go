package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Valid reports whether the write has a provider and lands inside the target buffer.
func (w BufferWrite) Valid() bool {
	return w.Provider != nil && w.Provider.Fits(w.Binding, w.Offset, uint64(len(w.Data)))
}
