package memory

// NewImage builds the initial MemoryImage described in spec.md section 3:
// a primary region [0, memSize) pre-populated from init (a sparse map of
// aligned word addresses to their initial 32-bit contents, as produced by
// program.Program.Image) and zero elsewhere, plus a playground region at
// playgroundBase of the same size, initialised to zero.
//
// This mirrors risc0's MemoryImage::new (original_source/risc0-nova/risc0/
// zkvm/src/binfmt/image.rs), which builds a VecMemory-backed MemorySpace
// from the loaded program and adds the 0xd000000000 playground region.
func NewImage(memSize, playgroundBase uint64, init map[uint64]uint32) (*Space, error) {
	space := NewSpace()

	primary := NewRegion(0, memSize)
	for addr, word := range init {
		if !primary.Write(addr, Word, uint64(word)) {
			continue // addresses outside the primary region are a loader concern, not ours
		}
	}
	if err := space.AddRegion(primary); err != nil {
		return nil, err
	}

	playground := NewRegion(playgroundBase, memSize)
	if err := space.AddRegion(playground); err != nil {
		return nil, err
	}

	return space, nil
}
