package store

import (
	"encoding/json"
	"fmt"

	"github.com/civicsync/civicsync/pkg/models"
)

func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return b, nil
}

func unmarshalStrings(raw []byte, into *[]string) error {
	if len(raw) == 0 {
		*into = nil
		return nil
	}
	return json.Unmarshal(raw, into)
}

func unmarshalParticipation(raw []byte, into *models.Participation) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}

func unmarshalAttachments(raw []byte, into *[]models.Attachment) error {
	if len(raw) == 0 {
		*into = nil
		return nil
	}
	return json.Unmarshal(raw, into)
}

func unmarshalVendorConfig(raw []byte, into *models.VendorConfig) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}
