package products

// UnknownProductName is used when an extraction carries no usable product name.
var UnknownProductName = "unknown product"

// Product is one product extracted from a document.
type Product struct {
	Name            string           `json:"product_name"`
	Model           *string          `json:"product_model"`
	Characteristics []Characteristic `json:"characteristics"`
}

// Characteristic is a named technical attribute with its supporting quotes.
type Characteristic struct {
	Name       string   `json:"name"`
	Value      *string  `json:"value"`
	References []string `json:"references"`
}
