package util

// InPlaceFilterErr keeps the elements matching p, stopping at the first predicate error.
// On error the slice is left untouched.
func InPlaceFilterErr[T any](s *[]T, p func(T) (bool, error)) error {
	keep := make([]bool, len(*s))
	for i, e := range *s {
		matches, err := p(e)
		if err != nil {
			return err
		}
		keep[i] = matches
	}

	i := 0
	for j, e := range *s {
		if keep[j] {
			(*s)[i] = e
			i++
		}
	}
	*s = (*s)[:i]

	return nil
}
