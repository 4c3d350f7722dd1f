package source

// Column names of a ledger CSV header. Matching is case-insensitive.
const (
	ColID            = "id"
	ColUserID        = "user_id"
	ColDate          = "date"
	ColAmount        = "amount"
	ColCategory      = "category"
	ColMerchant      = "merchant"
	ColPaymentMethod = "payment_method"
)

// Header is the canonical column order written by WriteCSV.
var Header = []string{ColID, ColUserID, ColDate, ColAmount, ColCategory, ColMerchant, ColPaymentMethod}

// requiredColumns must be present in every ledger header.
var requiredColumns = []string{ColUserID, ColDate, ColAmount}

// DiscoveredFile represents a ledger CSV file found during directory scanning.
type DiscoveredFile struct {
	Path      string
	Name      string // base name without extension
	MtimeNs   int64
	SizeBytes int64
}
