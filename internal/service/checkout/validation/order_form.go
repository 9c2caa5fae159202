// internal/service/checkout/validation/order_form.go
package validation

// OrderForm 声明结账表单可识别的字段及其约束。
// address2 参与地址的身份元组，但允许为空。
func OrderForm() []FieldSpec {
	return []FieldSpec{
		{
			Name: "name",
			Rules: []RuleSpec{
				{Expr: `value != ""`, Message: "Name must not be empty"},
				{Expr: `value.size() >= 2`, Message: "Name must have at least 2 characters"},
			},
		},
		{
			Name: "email",
			Rules: []RuleSpec{
				{Expr: `value != ""`, Message: "Email must not be empty"},
				{Expr: `value.matches("^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$")`, Message: "Email must be a valid email address"},
			},
		},
		{
			Name: "address1",
			Rules: []RuleSpec{
				{Expr: `value != ""`, Message: "Address1 must not be empty"},
			},
		},
		{
			Name:     "address2",
			Optional: true,
			Rules: []RuleSpec{
				{Expr: `value.size() >= 2`, Message: "Address2 must have at least 2 characters"},
			},
		},
		{
			Name: "city",
			Rules: []RuleSpec{
				{Expr: `value != ""`, Message: "City must not be empty"},
			},
		},
		{
			Name: "postal_code",
			Rules: []RuleSpec{
				{Expr: `value != ""`, Message: "Postal code must not be empty"},
				{Expr: `value.matches("^[A-Za-z0-9][A-Za-z0-9 -]*$")`, Message: "Postal code must be alphanumeric"},
			},
		},
	}
}
