package batches

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/mediadrop/internal/models"
)

func encodeItems(items []models.MediaReference) ([]byte, error) {
	if items == nil {
		items = []models.MediaReference{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return b, nil
}

func decodeItems(raw []byte) ([]models.MediaReference, error) {
	var items []models.MediaReference
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}
