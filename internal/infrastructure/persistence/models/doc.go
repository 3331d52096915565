// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain records to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain records should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. New*Model converters translate domain records into persistence models
// 4. Every table carries the record's natural key as primary key so that
//    redelivered batches upsert in place
package models
