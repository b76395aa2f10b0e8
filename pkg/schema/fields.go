package schema

// documentFields declares every searchable field of the document, its
// analyzer role, and the aggregate fields it feeds. The mapping JSON under
// static/schema must stay in lockstep with this table; both carry the same
// version.
var documentFields = []Field{
	{Name: "paper_id", Role: RoleExact, CopyTo: []string{"combined"}},
	{Name: "paper_id_v", Role: RoleExact},

	{Name: "title", Role: RoleStemmed, CopyTo: []string{"combined"}},
	{Name: "title.exact", Role: RoleExact},
	{Name: "title.folded", Role: RoleFolded},

	{Name: "abstract", Role: RoleStemmed, CopyTo: []string{"combined"}},
	{Name: "abstract.folded", Role: RoleFolded},

	{Name: "comments", Role: RoleStemmed, CopyTo: []string{"combined"}},
	{Name: "journal_ref", Role: RoleFolded, CopyTo: []string{"combined"}},
	{Name: "report_num", Role: RoleExact, CopyTo: []string{"combined"}},
	{Name: "doi", Role: RoleExact, CopyTo: []string{"combined"}},
	{Name: "msc_class", Role: RoleExact, CopyTo: []string{"combined"}},
	{Name: "acm_class", Role: RoleExact, CopyTo: []string{"combined"}},

	{Name: "authors.full_name", Role: RoleFolded, CopyTo: []string{"authors_combined", "combined"}},
	{Name: "authors.full_name.exact", Role: RoleExact},
	{Name: "authors.last_name", Role: RoleFolded, CopyTo: []string{"authors_combined"}},
	{Name: "authors.first_name", Role: RoleFolded, CopyTo: []string{"authors_combined"}},
	{Name: "authors.initials", Role: RoleFolded},
	{Name: "authors.full_name_initialized", Role: RoleFolded, CopyTo: []string{"authors_combined"}},

	{Name: "owners.full_name", Role: RoleFolded, CopyTo: []string{"authors_combined"}},
	{Name: "owners.full_name.exact", Role: RoleExact},
	{Name: "submitter.name", Role: RoleFolded, CopyTo: []string{"authors_combined"}},

	{Name: "fulltext", Role: RoleStemmed},

	{Name: "combined", Role: RoleCombined},
	{Name: "authors_combined", Role: RoleCombined},
}
