// Package models defines domain values and persistence interfaces for the downcida track downloader.
//
// The package contains two categories of types:
//
// 1. Values flowing through a single download
//   - [AudioFormat] : the format catalog, mapping a format to its encoding profile and file extension
//   - [DownloadRequest] : immutable caller input (track, destination, region, format)
//   - [JobHandle] : handoff and server name issued by the conversion API
//   - [JobStatus] : pending, completed or failed, as reported by a status poll
//   - [DownloadResult] : final file path and elapsed time
//
// 2. Persistent Entities
//   - [DownloadRecord] : download history row with status tracking
//
// Persistent entities implement the Model interface providing IDs, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
