package db

// User is a minimal record for the extraction fixtures.
type User struct {
	Name string
}

// Event notifies store observers.
type Event struct {
	Kind string
}

// Store batches writes.
type Store struct {
	pending []User
}

func SaveUser(u User) error {
	if !validate(u) {
		return errInvalid
	}
	return nil
}

func LoadUser(id string) (*User, error) {
	if id == "" {
		return nil, errInvalid
	}
	return &User{Name: id}, nil
}

func validate(u User) bool {
	return u.Name != ""
}

func (s *Store) Flush() error {
	s.pending = nil
	return nil
}

func Watch() <-chan Event {
	ch := make(chan Event)
	close(ch)
	return ch
}

func Keys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

type dbError string

func (e dbError) Error() string { return string(e) }

const errInvalid = dbError("invalid user")
