// Package extract turns parsed Ruby into the normalized schema model.
//
// Two source shapes are understood: the the_schema_is block inside an
// ActiveRecord model class, and the create_table blocks of db/schema.rb.
// Both go through the same column normalizer, so their ColumnDefs compare
// by value.
//
// Extraction never fails. Statements that do not look like column
// definitions are skipped and classes that are not models are reported as
// such through the boolean result of Model.
package extract
