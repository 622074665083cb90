package domain

import (
	"encoding/json"
	"fmt"
)

type ContextType string

const (
	ContextTypeOrder    ContextType = "order"
	ContextTypeProduct  ContextType = "product"
	ContextTypeCustomer ContextType = "customer"
)

// ContextRef is a lightweight pointer to an order, product, or customer
// record, attachable to a chat or message.
type ContextRef struct {
	Type ContextType
	ID   string
}

func (r ContextRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// ContextID accepts both a bare identifier and a populated object from the
// API (some endpoints expand contextId into the referenced record).
type ContextID string

func (c *ContextID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ContextID(s)
		return nil
	}

	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid context id: %w", err)
	}
	*c = ContextID(obj.ID)
	return nil
}

func (c ContextID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(c))
}
