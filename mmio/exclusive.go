package mmio

// Critical masks whatever execution contexts could interleave with a
// read-modify-write sequence. Enter returns the previous mask state, which
// Exit restores. Typical implementations clear PRIMASK or disable a single
// NVIC source.
type Critical interface {
	Enter() uint32
	Exit(state uint32)
}

// Exclusive is the capability to mutate registers shared between the main
// flow and an interrupt handler. It exists only while the Critical it was
// acquired from is entered.
type Exclusive struct {
	c     Critical
	state uint32
	held  bool
}

// Acquire enters c and returns the capability. Release must be called on the
// same execution context.
func Acquire(c Critical) *Exclusive {
	return &Exclusive{c: c, state: c.Enter(), held: true}
}

// Release exits the critical section. Releasing twice is a no-op.
func (x *Exclusive) Release() {
	if x == nil || !x.held {
		return
	}
	x.held = false
	x.c.Exit(x.state)
}

func (x *Exclusive) Held() bool {
	return x != nil && x.held
}

// With runs fn while holding exclusive access through c.
func With(c Critical, fn func(x *Exclusive)) {
	x := Acquire(c)
	defer x.Release()
	fn(x)
}

// Shared wraps a register that is reachable from more than one execution
// context. Reads are free; every mutator demands a held Exclusive.
type Shared struct {
	r Register
}

func Share(r Register) Shared {
	return Shared{r: r}
}

func (s Shared) check(x *Exclusive) {
	if Checked && !x.Held() {
		fail(ErrNotExclusive, s.r.addr)
	}
}

func (s Shared) Addr() Addr {
	return s.r.addr
}

func (s Shared) Get() uint32 {
	return s.r.Get()
}

func (s Shared) Bit(pos uint32) bool {
	return s.r.Bit(pos)
}

func (s Shared) ReadField(f Field) uint32 {
	return s.r.ReadField(f)
}

func (s Shared) Set(x *Exclusive, value uint32) {
	s.check(x)
	s.r.Set(value)
}

func (s Shared) Modify(x *Exclusive, fn func(uint32) uint32) {
	s.check(x)
	s.r.Modify(fn)
}

func (s Shared) WriteField(x *Exclusive, f Field, value uint32) {
	s.check(x)
	s.r.WriteField(f, value)
}

func (s Shared) WriteBit(x *Exclusive, pos uint32, on bool) {
	s.check(x)
	s.r.WriteBit(pos, on)
}

func (s Shared) ToggleBit(x *Exclusive, pos uint32) {
	s.check(x)
	s.r.ToggleBit(pos)
}

func (s Shared) WriteMasked(x *Exclusive, value, mask, pos uint32) {
	s.check(x)
	s.r.WriteMasked(value, mask, pos)
}

func (s Shared) TestAndSet(x *Exclusive, pos uint32) bool {
	s.check(x)
	return s.r.TestAndSet(pos)
}

func (s Shared) TestAndClear(x *Exclusive, pos uint32) bool {
	s.check(x)
	return s.r.TestAndClear(pos)
}
