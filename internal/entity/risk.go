package entity

import (
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Risk is the canonical risk entry. Probability, Impact and Severity are
// optional; Severity is derived from the other two when the backend omits it.
type Risk struct {
	ID          string
	Title       string
	Description string
	Category    string
	Status      string
	Owner       string
	Probability *float64
	Impact      *float64
	Severity    *float64
}

type riskPayload struct {
	ID          text   `json:"id"`
	RiskID      text   `json:"riskId"`
	Title       text   `json:"title"`
	Name        text   `json:"name"`
	RiskName    text   `json:"riskName"`
	Description text   `json:"description"`
	Category    text   `json:"category"`
	Status      text   `json:"status"`
	Owner       text   `json:"owner"`
	OwnerName   text   `json:"ownerName"`
	Probability number `json:"probability"`
	Likelihood  number `json:"likelihood"`
	Impact      number `json:"impact"`
	Severity    number `json:"severity"`
	RiskScore   number `json:"riskScore"`
}

func (p riskPayload) risk() Risk {
	r := Risk{
		ID:          first(p.ID, p.RiskID),
		Title:       first(p.Title, p.Name, p.RiskName),
		Description: first(p.Description),
		Category:    record.NormalizeEnum(string(p.Category)),
		Status:      record.NormalizeEnum(string(p.Status)),
		Owner:       first(p.Owner, p.OwnerName),
	}

	if v, ok := firstNumber(p.Probability, p.Likelihood); ok {
		r.Probability = &v
	}

	if v, ok := firstNumber(p.Impact); ok {
		r.Impact = &v
	}

	if v, ok := firstNumber(p.Severity, p.RiskScore); ok {
		r.Severity = &v
	}

	return r
}

// DecodeRisks parses a risk list payload.
func DecodeRisks(body []byte) ([]Risk, error) {
	payloads, err := decodeList[riskPayload](body)
	if err != nil {
		return nil, err
	}

	risks := make([]Risk, len(payloads))
	for i, p := range payloads {
		risks[i] = p.risk()
	}

	return risks, nil
}

// ToRecord converts the risk into a pipeline record.
func (r Risk) ToRecord() record.Record {
	rec := record.New(r.ID)

	setText(&rec, "title", r.Title)
	setText(&rec, "description", r.Description)
	setEnum(&rec, "category", r.Category)
	setEnum(&rec, "status", r.Status)
	setText(&rec, "owner", r.Owner)

	if r.Probability != nil {
		rec.Set("probability", record.Number(*r.Probability))
	}

	if r.Impact != nil {
		rec.Set("impact", record.Number(*r.Impact))
	}

	if r.Severity != nil {
		rec.Set("severity", record.Number(*r.Severity))
	}

	return rec
}

// RiskSchema describes the risk list. Default order is most severe first.
func RiskSchema() *query.Schema {
	return query.NewSchema(string(Risks)).
		Field("title", record.KindString).
		Field("description", record.KindString).
		Field("category", record.KindEnum).
		Field("status", record.KindEnum).
		Field("owner", record.KindString).
		Field("probability", record.KindNumber).
		Field("impact", record.KindNumber).
		Derive(query.Severity()).
		Search("title", "description", "owner").
		SortDefault(query.SortBy("severity", query.Descending))
}
