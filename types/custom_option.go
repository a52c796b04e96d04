package types

// DictionaryItem is a libav option (AVDictionary entry).
type DictionaryItem struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}
type DictionaryItems []DictionaryItem

// Get returns the value of the last item with the given key.
func (s DictionaryItems) Get(key string) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Key == key {
			return s[i].Value, true
		}
	}
	return "", false
}

// Without returns a copy of the items excluding the given key.
func (s DictionaryItems) Without(key string) DictionaryItems {
	var result DictionaryItems
	for _, item := range s {
		if item.Key == key {
			continue
		}
		result = append(result, item)
	}
	return result
}
