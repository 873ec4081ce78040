package schema

// Pages is the questionnaire definition: an ordered sequence of pages, each
// with an ordered sequence of questions.
var Pages = []Page{
	{
		ID:    "personal_details",
		Title: "Personal Details",
		Questions: []Question{
			{ID: "full_name", Type: TypeText, Label: "Full Name", Required: true},
			{ID: "email", Type: TypeEmail, Label: "Email Address"},
			{ID: "phone", Type: TypePhone, Label: "Phone Number"},
			{ID: "age", Type: TypeNumber, Label: "Age"},
		},
	},
	{
		ID:    "address",
		Title: "Address",
		Questions: []Question{
			{
				ID:    "address",
				Type:  TypeGroup,
				Label: "Residential Address",
				Fields: []Question{
					{ID: "line1", Type: TypeText, Label: "Address Line 1"},
					{ID: "city", Type: TypeText, Label: "City"},
					{ID: "state", Type: TypeText, Label: "State"},
					{ID: "pincode", Type: TypeNumber, Label: "Pincode"},
				},
			},
		},
	},
	{
		ID:    "tv_usage",
		Title: "TV Usage",
		Questions: []Question{
			{ID: "watch_tv", Type: TypeYesNo, Label: "Do you watch TV?"},
			{
				ID:     "hours_per_day",
				Type:   TypeNumber,
				Label:  "Hours per day",
				ShowIf: map[string]string{"watch_tv": "yes"},
			},
		},
	},
	{
		ID:    "subscriptions",
		Title: "Subscriptions",
		Questions: []Question{
			{
				ID:    "subscriptions",
				Type:  TypeMulti,
				Label: "Which subscriptions do you have?",
				Options: []string{
					"Cable TV",
					"Netflix",
					"Amazon Prime",
					"Disney+ Hotstar",
					"YouTube Premium",
				},
			},
		},
	},
	{
		ID:    "family",
		Title: "Family Members",
		Questions: []Question{
			{
				ID:    "members",
				Type:  TypeRepeatable,
				Label: "Add Family Member",
				Fields: []Question{
					{ID: "name", Type: TypeText, Label: "Name"},
					{ID: "age", Type: TypeNumber, Label: "Age"},
					{
						ID:      "relation",
						Type:    TypeSingle,
						Label:   "Relation",
						Options: []string{"Spouse", "Child", "Parent", "Other"},
					},
				},
			},
		},
	},
	{
		ID:    "confirmation",
		Title: "Confirmation",
		Questions: []Question{
			{ID: "confirm", Type: TypeYesNo, Label: "Are all details correct?"},
		},
	},
}
