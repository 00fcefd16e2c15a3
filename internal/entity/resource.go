package entity

import (
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Resource is the canonical resource-planning entry.
type Resource struct {
	ID        string
	Name      string
	Type      string
	Unit      string
	Total     *float64
	Available *float64
}

type resourcePayload struct {
	ID                text   `json:"id"`
	ResourceID        text   `json:"resourceId"`
	Name              text   `json:"name"`
	ResourceName      text   `json:"resourceName"`
	Type              text   `json:"type"`
	ResourceType      text   `json:"resourceType"`
	Unit              text   `json:"unit"`
	Total             number `json:"total"`
	TotalQuantity     number `json:"totalQuantity"`
	Quantity          number `json:"quantity"`
	Available         number `json:"available"`
	AvailableQuantity number `json:"availableQuantity"`
}

func (p resourcePayload) resource() Resource {
	r := Resource{
		ID:   first(p.ID, p.ResourceID),
		Name: first(p.Name, p.ResourceName),
		Type: record.NormalizeEnum(first(p.Type, p.ResourceType)),
		Unit: first(p.Unit),
	}

	if v, ok := firstNumber(p.Total, p.TotalQuantity, p.Quantity); ok {
		r.Total = &v
	}

	if v, ok := firstNumber(p.Available, p.AvailableQuantity); ok {
		r.Available = &v
	}

	return r
}

// DecodeResources parses a resource list payload.
func DecodeResources(body []byte) ([]Resource, error) {
	payloads, err := decodeList[resourcePayload](body)
	if err != nil {
		return nil, err
	}

	resources := make([]Resource, len(payloads))
	for i, p := range payloads {
		resources[i] = p.resource()
	}

	return resources, nil
}

// ToRecord converts the resource into a pipeline record.
func (r Resource) ToRecord() record.Record {
	rec := record.New(r.ID)

	setText(&rec, "name", r.Name)
	setEnum(&rec, "type", r.Type)
	setText(&rec, "unit", r.Unit)

	if r.Total != nil {
		rec.Set("total", record.Number(*r.Total))
	}

	if r.Available != nil {
		rec.Set("available", record.Number(*r.Available))
	}

	return rec
}

// LowStock derives low_stock = available < total*ratio.
func LowStock(ratio float64) query.Derivation {
	return query.Derivation{
		Field: "low_stock",
		Kind:  record.KindBool,
		Compute: func(rec record.Record) (record.Value, bool) {
			total, ok := numberOf(rec, "total")
			if !ok {
				return record.Value{}, false
			}

			available, ok := numberOf(rec, "available")
			if !ok {
				return record.Value{}, false
			}

			return record.Bool(available < total*ratio), true
		},
	}
}

// Allocated derives allocated = total - available.
func Allocated() query.Derivation {
	return query.Derivation{
		Field: "allocated",
		Kind:  record.KindNumber,
		Compute: func(rec record.Record) (record.Value, bool) {
			total, ok := numberOf(rec, "total")
			if !ok {
				return record.Value{}, false
			}

			available, ok := numberOf(rec, "available")
			if !ok {
				return record.Value{}, false
			}

			return record.Number(total - available), true
		},
	}
}

func numberOf(rec record.Record, field string) (float64, bool) {
	v, ok := rec.Get(field)
	if !ok {
		return 0, false
	}

	return v.Float()
}

// ResourceSchema describes the resource table. lowStockRatio is the share of
// total capacity under which a resource counts as low on stock.
func ResourceSchema(lowStockRatio float64) *query.Schema {
	return query.NewSchema(string(Resources)).
		Field("name", record.KindString).
		Field("type", record.KindEnum).
		Field("unit", record.KindString).
		Field("total", record.KindNumber).
		Field("available", record.KindNumber).
		Derive(LowStock(lowStockRatio)).
		Derive(Allocated()).
		Search("name", "type").
		SortDefault(query.SortBy("name", query.Ascending))
}
