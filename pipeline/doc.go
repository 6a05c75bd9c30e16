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


// Package pipeline computes related-questions lists.
//
// The Orchestrator drives the resumable batch sweep: it pages through the
// record store, embeds each page in one call, upserts the vectors through
// the Upserter, fans searches out through the Searcher, and commits the
// resulting related lists in chunks while advancing a checkpoint. OnDemand
// refreshes a single record between sweeps.
//
// All remote calls go through Retry with the shared transient classifier;
// validation failures and missing records fail fast.
package pipeline
