// Package inspect runs the schema checks over model files.
//
// For every class in a file the Inspector extracts the declared schema,
// looks up the table in the shared schema cache, reconciles the two and
// hands the discrepancies to the lint rules. Classes are independent: one
// class failing never hides the findings of another.
//
//	insp := inspect.New(schemacache.New(), inspect.Config{SchemaPath: "db/schema.rb"}, logger)
//	results, err := insp.InspectFiles(ctx, paths, 4)
package inspect
