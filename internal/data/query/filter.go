package query

import "fmt"

// FilterDirectories keeps the summaries matching every condition. Unknown
// fields are an error so typos surface instead of silently matching nothing.
func FilterDirectories(items []DirectorySummary, conditions []TQLCondition) ([]DirectorySummary, error) {
	if len(conditions) == 0 {
		return items, nil
	}
	filtered := make([]DirectorySummary, 0, len(items))
	for _, item := range items {
		keep := true
		for _, c := range conditions {
			ok, err := matchDirectory(item, c)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// FilterFiles keeps the summaries matching every condition.
func FilterFiles(items []FileSummary, conditions []TQLCondition) ([]FileSummary, error) {
	if len(conditions) == 0 {
		return items, nil
	}
	filtered := make([]FileSummary, 0, len(items))
	for _, item := range items {
		keep := true
		for _, c := range conditions {
			ok, err := matchFile(item, c)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func matchDirectory(item DirectorySummary, c TQLCondition) (bool, error) {
	switch c.Field {
	case "key", "directory":
		if !c.IsStr {
			return false, fmt.Errorf("field %q expects a string condition", c.Field)
		}
		return c.matchesString(item.Key), nil
	case "average_propagation", "average", "percentage":
		if !c.IsNumber {
			return false, fmt.Errorf("field %q expects a numeric condition", c.Field)
		}
		return c.matchesNumber(item.AveragePropagation), nil
	case "file_count", "files":
		if !c.IsNumber {
			return false, fmt.Errorf("field %q expects a numeric condition", c.Field)
		}
		return c.matchesNumber(float64(item.FileCount)), nil
	default:
		return false, fmt.Errorf("unknown directory field %q", c.Field)
	}
}

func matchFile(item FileSummary, c TQLCondition) (bool, error) {
	switch c.Field {
	case "path", "file":
		if !c.IsStr {
			return false, fmt.Errorf("field %q expects a string condition", c.Field)
		}
		return c.matchesString(item.Path), nil
	case "language":
		if !c.IsStr {
			return false, fmt.Errorf("field %q expects a string condition", c.Field)
		}
		return c.matchesString(item.Language), nil
	case "percentage":
		if !c.IsNumber {
			return false, fmt.Errorf("field %q expects a numeric condition", c.Field)
		}
		return c.matchesNumber(item.Percentage), nil
	case "token_count", "tokens":
		if !c.IsNumber {
			return false, fmt.Errorf("field %q expects a numeric condition", c.Field)
		}
		return c.matchesNumber(float64(item.TokenCount)), nil
	case "tracked_count":
		if !c.IsNumber {
			return false, fmt.Errorf("field %q expects a numeric condition", c.Field)
		}
		return c.matchesNumber(float64(item.TrackedCount)), nil
	case "declaration_count", "declarations":
		if !c.IsNumber {
			return false, fmt.Errorf("field %q expects a numeric condition", c.Field)
		}
		return c.matchesNumber(float64(item.DeclarationCount)), nil
	case "unresolved_count", "unresolved":
		if !c.IsNumber {
			return false, fmt.Errorf("field %q expects a numeric condition", c.Field)
		}
		return c.matchesNumber(float64(item.UnresolvedCount)), nil
	default:
		return false, fmt.Errorf("unknown file field %q", c.Field)
	}
}
