package main

import (
	"context"
	"fmt"
	"path"
	"time"

	"dagger/bazi/internal/dagger"
)

// releaseRoot is the bucket prefix every bazi release lives under.
const releaseRoot = "bazi"

// packageScript turns the <os>/<arch>/ build tree into one tarball per
// platform holding both binaries, plus a SHA256SUMS file.
const packageScript = `set -eu
mkdir -p /out
for dir in */*/; do
  os=${dir%%/*}
  arch=$(basename "$dir")
  tar -czf "/out/bazi_${VERSION}_${os}_${arch}.tar.gz" -C "$dir" bazi baziapi
done
cd /out
sha256sum *.tar.gz > SHA256SUMS`

// releaseBucket holds the S3-compatible bucket credentials for uploads.
type releaseBucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyId     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// packageRelease archives the build tree into release tarballs and checksums.
func (b *Bazi) packageRelease(artifacts *dagger.Directory, version string) *dagger.Directory {
	return dag.Container().
		From("alpine:3.20").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithEnvVariable("VERSION", version).
		WithExec([]string{"sh", "-c", packageScript}).
		Directory("/out")
}

// upload syncs the release tarballs to <bucket>/bazi/<prefix>.
func (b *Bazi) upload(
	ctx context.Context,
	bucket releaseBucket,
	artifacts *dagger.Directory,
	prefix string,
) error {
	bucketName, err := bucket.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket name: %w", err)
	}

	endpointUrl, err := bucket.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get endpoint: %w", err)
	}

	destination := "s3://" + path.Join(bucketName, releaseRoot, prefix)

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", bucket.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", bucket.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{
			"aws", "s3", "sync", ".",
			destination,
			"--endpoint-url", endpointUrl,
			"--delete",
		}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("failed to upload to %s: %w", destination, err)
	}

	return nil
}

// ReleaseLatest builds, packages and uploads a versioned bazi release, then
// mirrors it to bazi/latest.
func (b *Bazi) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	target := releaseBucket{
		endpoint:        endpoint,
		name:            bucket,
		accessKeyId:     accessKeyId,
		secretAccessKey: secretAccessKey,
	}

	release := b.packageRelease(b.BuildRelease(ctx, version, commit), version)

	for _, prefix := range []string{version, "latest"} {
		if err := b.upload(ctx, target, release, prefix); err != nil {
			return release, fmt.Errorf("could not upload %s release: %w", prefix, err)
		}
	}

	return release, nil
}

// Nightly builds and uploads a dated nightly under bazi/nightly/<date>.
func (b *Bazi) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	target := releaseBucket{
		endpoint:        endpoint,
		name:            bucket,
		accessKeyId:     accessKeyId,
		secretAccessKey: secretAccessKey,
	}

	version := "nightly-" + time.Now().UTC().Format("20060102")
	release := b.packageRelease(b.BuildRelease(ctx, version, commit), version)

	return release, b.upload(ctx, target, release, path.Join("nightly", version))
}
