// Package storage provides the object store adapter used by the asset jobs.
//
// Production assets live in an Aliyun OSS bucket, which speaks the S3
// protocol. Two drivers are available behind the Store interface:
//
//   - minio (default): the minio SDK, wrapped through the Client interface so
//     it can be mocked (see core/storage/mocks).
//   - s3: the AWS SDK v2 S3 client with real continuation tokens.
//
// # Store Interface
//
// Store is deliberately small and bound to one bucket:
//
//   - List: one page under a prefix, continued by an opaque token.
//   - Head: metadata of one key; a 404-class answer is ErrNotFound and
//     nothing else is.
//   - Put / Copy: write content or server-side copy, replacing the cache
//     headers carried in PutOptions. A self-copy rewrites headers only.
//   - Get / Delete.
//
// # Configuration
//
// Config is filled from OSS_* environment variables. Validate reports missing
// credentials as a ConfigurationError without contacting the store.
//
// # Usage
//
//	store, err := storage.NewStore(ctx, cfg.OSS)
//	meta, err := store.Head(ctx, "public/images/a.jpg")
//	if storage.IsNotFound(err) {
//	    // free to write
//	}
package storage
