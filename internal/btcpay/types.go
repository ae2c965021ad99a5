package btcpay

import "encoding/json"

// InvoiceStatusSettled is the only status the forwarder disburses for.
const InvoiceStatusSettled = "Settled"

// Invoice is the subset of the processor's invoice detail the forwarder
// reads.
type Invoice struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   string          `json:"amount"`
	Currency string          `json:"currency"`
	Metadata InvoiceMetadata `json:"metadata"`
}

type InvoiceMetadata struct {
	OrderID string  `json:"orderId"`
	PosData PosData `json:"posData"`
}

// PosData carries the point-of-sale breakdown for an invoice. The processor
// serializes it either as a nested object or as a JSON-encoded string,
// depending on the app that created the invoice; both forms are accepted.
type PosData struct {
	Tip      float64 `json:"tip"`
	SubTotal float64 `json:"subTotal"`
	Total    float64 `json:"total"`
}

func (p *PosData) UnmarshalJSON(data []byte) error {
	type plain PosData
	var direct plain
	if err := json.Unmarshal(data, &direct); err == nil {
		*p = PosData(direct)
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	var nested plain
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		return err
	}
	*p = PosData(nested)
	return nil
}

// paymentMethod is one entry of the invoice payment-methods response.
type paymentMethod struct {
	CryptoCode string `json:"cryptoCode"`
	Payments   []struct {
		Value string `json:"value"`
	} `json:"payments"`
}
