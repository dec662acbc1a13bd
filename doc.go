// Package jsonhttp serializes and deserializes JSON bodies for HTTP clients.
//
// The package is organized into several sub-packages:
//
//   - value: in-memory JSON values, rendering and pretty printing
//   - encoding/charset: conversion between text encodings and UTF-8
//   - encoding/json: incremental JSON decoder and array streaming
//
// Incoming bodies are never read into memory in full before being parsed.
// Bytes go through a pipeline
//
//	bytes -> charset decoder -> JSON parser -> value
//
// as they arrive, and the resulting value is mapped onto a Go type by a Codec.
// When the body is a JSON array, Client.StreamArray hands each element to a
// callback as soon as it is complete, so memory use does not grow with the
// length of the array:
//
//	codec, _ := jsonhttp.New()
//	client := jsonhttp.NewClient(codec)
//	err := jsonhttp.StreamArrayOf(ctx, client, jsonhttp.StreamRequest{URL: url},
//		func(ctx context.Context, item Item) error {
//			return process(item)
//		})
//
// Custom conversions for given types can be registered with WithToJSON and
// WithFromJSON.  They apply wherever the type appears, including in nested
// fields.
//
// The CLI utility is in the directory cmd/jp. You can install it with:
//
//	go install github.com/arnodel/jsonhttp/cmd/jp
package jsonhttp
