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

// Package dataset owns the lifecycle of named datasets.
//
// A Registry holds the immutable catalog of dataset configurations. A Manager
// builds each dataset on first use by running its source through a Chunker, a
// GraphBuilder and an EngineFactory, and tracks whether the dataset is ready. At
// most one build runs per dataset at a time; concurrent callers share its result.
// A Dispatcher routes questions to the answer engine of a ready dataset.
package dataset
