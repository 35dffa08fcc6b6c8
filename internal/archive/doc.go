// Package archive writes the selected files of a bundle into a
// gzip-compressed tar file.
//
// Each Member pairs the absolute path of a source file with the
// slash-separated name it is stored under:
//
//	res, err := archive.WriteTarGz(ctx, "/out/demo-1a2b3c4.tar.gz", members, archive.Options{})
//
// The archive is written to a temporary file next to the destination and
// renamed into place only after every member was added, so a failed run
// never leaves a truncated archive behind. Contents are stored
// byte-for-byte together with the permission bits and modification time
// of each file; owner and group are not recorded.
package archive
