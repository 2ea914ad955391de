package csvmap

import (
	"strings"
	"unicode"
)

// Field identifies one mappable vehicle attribute in a loose CSV.
type Field string

// Mappable fields. Name is the only one required for a row to be importable.
const (
	FieldName             Field = "name"
	FieldMake             Field = "make"
	FieldModel            Field = "model"
	FieldYear             Field = "year"
	FieldType             Field = "vehicle_type"
	FieldVIN              Field = "vin"
	FieldPlateNumber      Field = "plate_number"
	FieldMileage          Field = "mileage"
	FieldTabExpiration    Field = "tab_expiration"
	FieldStatus           Field = "status"
	FieldNotes            Field = "notes"
	FieldPurchasePrice    Field = "purchase_price"
	FieldPurchaseDate     Field = "purchase_date"
	FieldNickname         Field = "nickname"
	FieldMaintenanceNotes Field = "maintenance_notes"
	FieldEstimatedValue   Field = "estimated_value"
)

// mappingRule binds a field to the keywords that identify it in a header.
// A header matches when its normalized form contains any keyword.
type mappingRule struct {
	field    Field
	keywords []string
}

// mappingRules is an ordered list: for each header the first matching rule
// wins, so more specific fields must precede the generic ones they overlap
// with ("nickname" before "name", "purchase date" before "purchase price"
// before bare "price", "vehicle type" before anything containing "type").
var mappingRules = []mappingRule{
	{FieldNickname, []string{"nickname", "alias"}},
	{FieldVIN, []string{"vin", "serialnumber"}},
	{FieldPlateNumber, []string{"plate", "license"}},
	{FieldTabExpiration, []string{"tab", "registrationexp", "expir"}},
	{FieldPurchaseDate, []string{"purchasedate", "purchased", "bought", "acquired"}},
	{FieldPurchasePrice, []string{"purchaseprice", "pricepaid", "price", "paid"}},
	{FieldEstimatedValue, []string{"estimatedvalue", "value", "worth"}},
	{FieldMaintenanceNotes, []string{"maintenance", "servicenotes"}},
	{FieldStatus, []string{"status"}},
	{FieldMileage, []string{"mile", "odo", "km"}},
	{FieldYear, []string{"year", "yr"}},
	{FieldMake, []string{"make", "brand", "manufacturer"}},
	{FieldModel, []string{"model"}},
	{FieldType, []string{"type", "category", "class"}},
	{FieldNotes, []string{"note", "comment", "description"}},
	{FieldName, []string{"name", "vehicle", "title"}},
}

// NormalizeHeader lowercases a header cell and strips everything but
// letters and digits, so "Plate Number", "plate_number", and "PLATE #"
// all normalize to comparable forms.
func NormalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// MapField maps one raw header cell to a Field via the ordered keyword
// rules. Returns ok=false for headers no rule recognizes; those columns
// are ignored unless the user maps them manually.
func MapField(header string) (Field, bool) {
	n := NormalizeHeader(header)
	if n == "" {
		return "", false
	}
	for _, rule := range mappingRules {
		for _, kw := range rule.keywords {
			if strings.Contains(n, kw) {
				return rule.field, true
			}
		}
	}
	return "", false
}

// MapHeaders auto-maps a full header row to fields. When two headers map to
// the same field the first column wins and later ones are ignored — the
// user can override any mapping before proceeding. The returned map goes
// Field → column index.
func MapHeaders(headers []string) map[Field]int {
	out := make(map[Field]int)
	for i, h := range headers {
		f, ok := MapField(h)
		if !ok {
			continue
		}
		if _, taken := out[f]; !taken {
			out[f] = i
		}
	}
	return out
}
