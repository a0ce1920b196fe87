/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package v1 contains the domain model of the rotation scheduling core: people,
// blocks, rotation templates, assignments, absences, and the context/result
// types exchanged with the scheduling engine. Entities are value-like; all
// cross-entity references are opaque ids resolved against per-run indices.
package v1
