package solver

// MergedRepository consults an ordered list of child repositories. For
// each demand, the first child that returns a non-empty candidate list
// wins; later children are not asked about that demand again. Errors
// short-circuit the whole query.
type MergedRepository struct {
	repos []Repository
}

func NewMergedRepository(repos []Repository) *MergedRepository {
	return &MergedRepository{repos: repos}
}

func (r *MergedRepository) FindPackage(d Depend) ([]Package, error) {
	for _, repo := range r.repos {
		pkgs, err := repo.FindPackage(d)
		if err != nil {
			return nil, err
		}
		if len(pkgs) > 0 {
			return pkgs, nil
		}
	}
	return nil, nil
}

// FindPackages forwards only the still-unanswered demands to each
// successive child.
func (r *MergedRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	out := make(map[string][]Package, len(ds))
	pending := make([]Depend, len(ds))
	copy(pending, ds)

	for _, repo := range r.repos {
		if len(pending) == 0 {
			break
		}
		found, err := repo.FindPackages(pending)
		if err != nil {
			return nil, err
		}
		var still []Depend
		for _, d := range pending {
			if pkgs := found[d.key()]; len(pkgs) > 0 {
				out[d.key()] = pkgs
			} else {
				still = append(still, d)
			}
		}
		pending = still
	}
	for _, d := range pending {
		out[d.key()] = nil
	}
	return out, nil
}
