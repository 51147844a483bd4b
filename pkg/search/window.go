package search

// Window returns the page-th slice of PageSize items (1-based).
// Pages below 1 are treated as 1; pages past the end are empty.
func Window(list []Document, page int) []Document {
	if page < 1 {
		page = 1
	}
	if page > PageCount(len(list)) {
		return nil
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

// HasMore reports whether items remain after the page-th window.
func HasMore(list []Document, page int) bool {
	if page < 1 {
		page = 1
	}
	return page < PageCount(len(list))
}

// PageCount returns the number of windows needed for n items.
func PageCount(n int) int {
	return (n + PageSize - 1) / PageSize
}
