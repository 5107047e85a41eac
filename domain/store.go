package domain

// Mutation computes the next state of a room from its current state inside a store's
// read-modify-write. current is nil when nothing is stored under the id yet, otherwise it
// is a private copy the mutation may modify and return. Returning ErrUnchanged leaves
// the stored record as it is; any other error aborts the write.
//
// A store may run a mutation more than once for one Upsert, so it must not have side
// effects beyond the room it returns.
type Mutation func(current *Room) (*Room, error)
