// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package vectorindex

import "errors"

var (
	// ErrIndexNotFound indicates that the named index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexInitializing indicates that another caller is already
	// creating or validating the index. Retry once it settles.
	ErrIndexInitializing = errors.New("index is initializing")

	// ErrIndexNotReady indicates that the index did not become ready
	// within the allowed window.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrDimensionMismatch indicates that an existing index has a
	// different dimension than the one requested.
	ErrDimensionMismatch = errors.New("index dimension mismatch")

	// ErrMetricMismatch indicates that an existing index uses a
	// different distance metric than the one requested.
	ErrMetricMismatch = errors.New("index metric mismatch")
)
