package tools

var specs = []Spec{
	{
		Name:        "create_category",
		Description: "Create a category. Omit parent_id for a top-level category.",
		Params: []Param{
			{Name: "name", Type: "string", Description: "Category name", Required: true},
			{Name: "parent_id", Type: "string", Description: "ID of the parent category"},
		},
	},
	{
		Name:        "update_category",
		Description: "Rename a category and/or move it under another parent. An empty parent_id moves it to the top level.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Category ID", Required: true},
			{Name: "name", Type: "string", Description: "New name"},
			{Name: "parent_id", Type: "string", Description: "New parent category ID"},
		},
	},
	{
		Name:        "delete_category",
		Description: "Delete a category together with all its subcategories and their questions.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Category ID", Required: true},
		},
	},
	{
		Name:        "create_question",
		Description: "Create a question in a category. Text and answer may use markdown.",
		Params: []Param{
			{Name: "text", Type: "string", Description: "Question text", Required: true},
			{Name: "correct_answer", Type: "string", Description: "Reference answer", Required: true},
			{Name: "category_id", Type: "string", Description: "Category ID", Required: true},
			{Name: "difficulty", Type: "integer", Description: "Difficulty from 1 (easy) to 5 (hard), default 3"},
			{Name: "tags", Type: "array", Description: "Free-form tags"},
		},
	},
	{
		Name:        "update_question",
		Description: "Change fields of a question. Omitted fields are kept.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Question ID", Required: true},
			{Name: "text", Type: "string", Description: "Question text"},
			{Name: "correct_answer", Type: "string", Description: "Reference answer"},
			{Name: "category_id", Type: "string", Description: "Category ID"},
			{Name: "difficulty", Type: "integer", Description: "Difficulty from 1 to 5"},
			{Name: "tags", Type: "array", Description: "Replacement tag list"},
		},
	},
	{
		Name:        "delete_question",
		Description: "Delete a question. Its answer history is kept.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Question ID", Required: true},
		},
	},
	{
		Name:        "list_categories",
		Description: "List all categories with their full path.",
	},
	{
		Name:        "list_questions",
		Description: "List questions, optionally only those directly in one category.",
		Params: []Param{
			{Name: "category_id", Type: "string", Description: "Category ID filter"},
			{Name: "limit", Type: "integer", Description: "Maximum results, default 50, at most 200"},
		},
	},
}
